package config

import (
	"errors"
	"os"
	"os/exec"
)

// ErrNoCompiler is returned when the configured compiler is not on PATH.
var ErrNoCompiler = errors.New("no C++ compiler found")

// CompilerSource represents where the compiler command was taken from.
type CompilerSource string

const (
	CompilerSourceEnv     CompilerSource = "environment"
	CompilerSourceConfig  CompilerSource = "config_file"
	CompilerSourceDefault CompilerSource = "default"
)

// ResolveCompiler returns the compiler command and where it came from.
// CXX wins over the configured toolchain.compiler.
func ResolveCompiler(cfg *Config) (string, CompilerSource) {
	if cxx := os.Getenv("CXX"); cxx != "" {
		return cxx, CompilerSourceEnv
	}
	if cfg != nil && cfg.Toolchain.Compiler != "" && cfg.Toolchain.Compiler != Default().Toolchain.Compiler {
		return cfg.Toolchain.Compiler, CompilerSourceConfig
	}
	return Default().Toolchain.Compiler, CompilerSourceDefault
}

// LookupCompiler resolves the compiler and checks that it is executable.
func LookupCompiler(cfg *Config) (string, error) {
	name, _ := ResolveCompiler(cfg)
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Join(ErrNoCompiler, err)
	}
	return path, nil
}
