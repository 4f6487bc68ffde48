package patterns

import "time"

// DefaultTimeout is the default timeout for HTTP requests
const DefaultTimeout = 3 * time.Second

// SlowServiceTimeout is used for the maps provider, which can be slow
const SlowServiceTimeout = 10 * time.Second

// ServiceName labels metrics emitted by the edit service
const ServiceName = "order-edit-service"
