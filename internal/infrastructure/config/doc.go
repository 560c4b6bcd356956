// Package config handles loading and validating the gateway configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (LUTRONGW_*)
//   - Validation of required fields
//   - Default values matching the hub's reference timings
//
// Security Considerations:
//   - The hub token should be supplied via LUTRONGW_HUB_TOKEN rather than the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Hub.URL)
package config
