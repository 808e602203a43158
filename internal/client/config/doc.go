// Package config loads runtime configuration for the gophnotes client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file, JSON or YAML. An explicit path must exist; the
//     default <profile>/config.{json,yaml} may be absent.
//  3. Environment variables with the NOTES_ prefix, e.g. NOTES_LOG_LEVEL.
//  4. Command-line flags bound through a pflag.FlagSet.
//
// # File schema
//
//	profile_dir: ~/.config/gophnotes
//	database_dsn: /path/to/database.sqlite
//	resource_dir: /path/to/resources
//	log_level: info
//	log_format: text
//	decryption_batch_size: 10
//	sync_targets:
//	  - id: 1
//	    kind: filesystem
//	    path: /mnt/share/notes
//	  - id: 2
//	    kind: s3
//	    bucket: notes
//	    region: us-east-1
//	    endpoint: http://127.0.0.1:9000
//	    access_key: minioadmin
//	    secret_key: minioadmin
//	    use_path_style: true
//
// Sync targets can only be configured from the file.
package config
