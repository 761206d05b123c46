package app

// Global config object, set by main.go
var Config struct {
	// Number of training jobs that may run concurrently.
	TrainWorkers int
}
