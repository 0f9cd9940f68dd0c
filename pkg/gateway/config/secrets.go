package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/oaustegard/cf-api-gateway/pkg/gateway"
)

// Environment resolves secret names from the process environment, falling back
// to values read from a dotenv file. Values are never written to os.Environ.
type Environment struct {
	file   map[string]string
	lookup func(string) (string, bool)
}

// LoadEnvironment reads envFile (if non-empty) with godotenv
func LoadEnvironment(envFile string) (*Environment, error) {
	env := &Environment{file: map[string]string{}, lookup: os.LookupEnv}
	if envFile == "" {
		return env, nil
	}

	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvFileNotFound, envFile)
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	env.file = values
	return env, nil
}

// Lookup returns the process value when set and non-empty, else the file value
func (e *Environment) Lookup(name string) (string, bool) {
	if v, ok := e.lookup(name); ok && v != "" {
		return v, true
	}
	v, ok := e.file[name]
	return v, ok
}

// LoadSecrets resolves the shared token and every credential the table needs.
// A missing proxy token is an error; missing upstream credentials are not
// (those services answer 503 until the credential is provided).
func LoadSecrets(cfg SecretsConfig, table *gateway.ServiceTable, env *Environment) (*gateway.ProxySecrets, error) {
	tokenName := cfg.ProxyTokenEnv
	if tokenName == "" {
		tokenName = gateway.ProxyTokenName
	}

	token, _ := env.Lookup(tokenName)
	if token == "" {
		return nil, fmt.Errorf("%w: set %s in the environment or env file", ErrProxyTokenRequired, tokenName)
	}

	credentials := make(map[string]string)
	for _, name := range table.CredentialNames() {
		if v, ok := env.Lookup(name); ok {
			credentials[name] = v
		}
	}

	return gateway.NewProxySecrets(token, credentials), nil
}
