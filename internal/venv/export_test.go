package venv

// EnvKeyEqual exposes envKeyEqual to the external test package.
var EnvKeyEqual = envKeyEqual
