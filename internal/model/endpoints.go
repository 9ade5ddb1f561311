package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/viper"
)

// Endpoints is the catalogue of REST paths, keyed by HTTP method and then
// by a short name such as "login" or "set_password".
type Endpoints struct {
	Post   map[string]string `mapstructure:"api_post" yaml:"api_post"`
	Get    map[string]string `mapstructure:"api_get" yaml:"api_get"`
	Put    map[string]string `mapstructure:"api_put" yaml:"api_put"`
	Delete map[string]string `mapstructure:"api_delete" yaml:"api_delete"`
}

// LoadEndpoints reads the endpoint catalogue from path. Unlike the main
// config the catalogue must exist and must define api_post.login_url.
func LoadEndpoints(path string) (*Endpoints, error) {
	v := viper.New()
	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	eps := &Endpoints{}
	if err := v.Unmarshal(eps); err != nil {
		return nil, fmt.Errorf("parsing endpoints %s: %w", path, err)
	}

	if _, err := eps.Resolve(http.MethodPost, "login"); err != nil {
		return nil, fmt.Errorf("invalid endpoints %s: %w", path, err)
	}

	return eps, nil
}

// Resolve looks up the path registered for method under name. Both the
// bare name and the "<name>_url" spelling are accepted.
func (e *Endpoints) Resolve(method, name string) (string, error) {
	var table map[string]string
	switch strings.ToUpper(method) {
	case http.MethodPost:
		table = e.Post
	case http.MethodGet:
		table = e.Get
	case http.MethodPut:
		table = e.Put
	case http.MethodDelete:
		table = e.Delete
	default:
		return "", fmt.Errorf("unsupported method %q", method)
	}

	key := strings.ToLower(name)
	for _, candidate := range []string{key, key + "_url"} {
		if path, ok := table[candidate]; ok && strings.TrimSpace(path) != "" {
			return path, nil
		}
	}

	return "", &MissingEndpointError{Method: strings.ToUpper(method), Name: name}
}

// MissingEndpointError reports an endpoint absent from the catalogue.
type MissingEndpointError struct {
	Method string
	Name   string
}

func (e *MissingEndpointError) Error() string {
	return fmt.Sprintf("missing %s endpoint %q in config", e.Method, e.Name)
}

// IsMissingEndpoint reports whether err (or any error in its chain) is a
// MissingEndpointError.
func IsMissingEndpoint(err error) bool {
	var target *MissingEndpointError
	return errors.As(err, &target)
}
