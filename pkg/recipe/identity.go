package recipe

import (
	"fmt"
	"strings"

	"github.com/blang/semver"

	"github.com/provide-io/flavor/go/fmtpack/pkg/fetch"
	recipeerrors "github.com/provide-io/flavor/go/fmtpack/pkg/recipe/errors"
)

// Identity is the immutable package metadata declared by a recipe.
type Identity struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	License     string   `json:"license" yaml:"license"`
	Homepage    string   `json:"homepage" yaml:"homepage"`
	URL         string   `json:"url" yaml:"url"`
	Description string   `json:"description" yaml:"description"`
	Topics      []string `json:"topics" yaml:"topics"`

	Source fetch.Source `json:"-" yaml:"-"`
}

// Reference returns "name/version".
func (i Identity) Reference() string {
	return i.Name + "/" + i.Version
}

// Validate checks the fields every stage relies on.
func (i Identity) Validate() error {
	var problems []string
	if i.Name == "" {
		problems = append(problems, "name is empty")
	}
	if _, err := semver.Parse(i.Version); err != nil {
		problems = append(problems, fmt.Sprintf("version %q: %v", i.Version, err))
	}
	if i.Source.URL == "" {
		problems = append(problems, "source URL is empty")
	}
	if _, err := fetch.ParseChecksum(i.Source.Checksum); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", recipeerrors.ErrInvalidIdentity, strings.Join(problems, "; "))
	}
	return nil
}

// WithSourceURL returns a copy whose source is fetched from url instead, for
// mirrors. The checksum still pins the content.
func (i Identity) WithSourceURL(url string) Identity {
	i.Topics = append([]string(nil), i.Topics...)
	i.Source.URL = url
	return i
}
