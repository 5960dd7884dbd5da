package core

import (
	"fmt"
	"strings"
)

// Environment is the ENVIRONMENT setting of a deployment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

var environments = []Environment{Development, Staging, Testing, Production}

func (e Environment) String() string {
	return string(e)
}

// StructuredLogs reports whether logs go out as JSON lines for collection
// instead of the console format.
func (e Environment) StructuredLogs() bool {
	return e == Production || e == Staging
}

// ParseEnvironment matches v case-insensitively. Empty means development;
// anything else that is not a known environment is an error.
func ParseEnvironment(v string) (Environment, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return Development, nil
	}
	for _, e := range environments {
		if string(e) == v {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown ENVIRONMENT %q", v)
}
