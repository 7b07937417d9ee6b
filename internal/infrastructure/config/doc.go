// Package config handles loading and validating scenemix configuration.
//
// This package manages:
//   - Locating the config file (explicit path, working directory,
//     executable directory, user config directory)
//   - Loading configuration from YAML
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (OBS and MQTT passwords) should be set via
//     environment variables rather than the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	path, err := config.Resolve("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Mixer.Host)
package config
