// Package cli provides command-line interface setup and configuration
// for the flashpix application. It handles flag parsing, command
// creation, input reading and configuration management using cobra
// and viper.
package cli
