package storage

import "jubily/internal/ports"

// Provider is the durable-store contract shared by the publisher and the API.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
