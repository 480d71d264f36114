package endpoint

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Runtime modes selecting the terminating link.
const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// Env is the environment-variable surface of the client.
type Env struct {
	DeploymentHost string `env:"VERCEL_URL"`
	Port           uint16 `env:"PORT"`
	// Environment is APP_ENV, falling back to NODE_ENV, then production.
	Environment    string `env:"APP_ENV"`
	NodeEnv        string `env:"NODE_ENV"`
	Mode           string `env:"TRPC_RUNTIME_MODE" envDefault:"auto"`
	MockSeed       string `env:"TRPC_MOCK_SEED"`
	Browser        *bool  `env:"TRPC_BROWSER"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("endpoint: parse env: %w", err)
	}
	e.DeploymentHost = strings.TrimSpace(e.DeploymentHost)
	e.Environment = strings.ToLower(strings.TrimSpace(e.Environment))
	if e.Environment == "" {
		e.Environment = strings.ToLower(strings.TrimSpace(e.NodeEnv))
	}
	if e.Environment == "" {
		e.Environment = EnvironmentProduction
	}
	e.Mode = strings.ToLower(strings.TrimSpace(e.Mode))
	if e.Mode == "" {
		e.Mode = ModeAuto
	}
	switch e.Mode {
	case ModeAuto, ModeHTTP, ModeMock:
	default:
		return Env{}, fmt.Errorf("endpoint: unsupported TRPC_RUNTIME_MODE value %q", e.Mode)
	}
	return e, nil
}

// Runtime converts the parsed environment into a Runtime.
func (e Env) Runtime() Runtime {
	browser := DetectBrowser()
	if e.Browser != nil {
		browser = *e.Browser
	}
	return Runtime{
		IsBrowser:      browser,
		DeploymentHost: e.DeploymentHost,
		Port:           e.Port,
		Environment:    e.Environment,
	}
}

// FromEnv returns the Runtime described by the process environment.
func FromEnv() (Runtime, error) {
	e, err := LoadEnv()
	if err != nil {
		return Runtime{}, err
	}
	return e.Runtime(), nil
}
