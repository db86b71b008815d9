package workenv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Stage names used for completion markers
const (
	StageSource  = "source"
	StagePackage = "package"
)

// Marker records that a stage finished for a given key. The key is the
// source checksum for the source stage and the package id afterwards.
type Marker struct {
	Timestamp   time.Time `json:"timestamp"`
	PackageName string    `json:"package_name"`
	Version     string    `json:"version"`
	Stage       string    `json:"stage"`
	Key         string    `json:"key"`
}

func completeFile(dir, stage string) string {
	return filepath.Join(dir, "."+stage+".complete")
}

func incompleteFile(dir, stage string) string {
	return filepath.Join(dir, "."+stage+".incomplete")
}

// IsValid checks that dir holds a finished stage for packageName/version
// and key.
func IsValid(dir, stage, packageName, version, key string) bool {
	marker, err := ReadMarker(dir, stage)
	if err != nil {
		return false
	}

	if marker.PackageName != packageName || marker.Version != version || marker.Stage != stage {
		return false
	}
	if key != "" && marker.Key != key {
		return false
	}
	if _, err := os.Stat(incompleteFile(dir, stage)); err == nil {
		return false
	}
	return true
}

// ReadMarker returns the completion marker of a stage.
func ReadMarker(dir, stage string) (*Marker, error) {
	data, err := os.ReadFile(completeFile(dir, stage))
	if err != nil {
		return nil, err
	}
	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

// MarkComplete records that stage finished in dir
func MarkComplete(dir, stage, packageName, version, key string) error {
	marker := Marker{
		Timestamp:   time.Now().UTC(),
		PackageName: packageName,
		Version:     version,
		Stage:       stage,
		Key:         key,
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}

	os.Remove(incompleteFile(dir, stage))
	return os.WriteFile(completeFile(dir, stage), data, 0644)
}

// MarkIncomplete records a failed stage so a later run redoes it
func MarkIncomplete(dir, stage, reason string) error {
	marker := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"stage":     stage,
		"reason":    reason,
	}

	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}

	os.Remove(completeFile(dir, stage))
	return os.WriteFile(incompleteFile(dir, stage), data, 0644)
}

// Clean removes the markers of every stage in dir
func Clean(dir string) {
	for _, stage := range []string{StageSource, StagePackage} {
		os.Remove(completeFile(dir, stage))
		os.Remove(incompleteFile(dir, stage))
	}
}
