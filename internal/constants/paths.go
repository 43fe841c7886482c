package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultPidPath is where serve records its PID unless runtime.pid_file is set
const DefaultPidPath = "./cronkeeper.pid"
