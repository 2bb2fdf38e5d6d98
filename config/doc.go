// Package config loads configuration for the diarize CLI from config.yml,
// .env files, and environment variables via viper. Flags parsed by the cli
// package override anything loaded here.
package config
