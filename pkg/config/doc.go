// Package config loads typed configuration structs from environment
// variables, with optional .env file support.
//
// Each struct type is parsed once per process and cached, so components that
// load the same config type always agree. Required values use the
// `env:"NAME,required"` tag form; defaults use `envDefault`.
//
//	var gw gateway.Config
//	config.MustLoad(&gw)
package config
