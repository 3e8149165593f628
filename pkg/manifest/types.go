package manifest

// HandlerType enumerates the supported handler kinds.
type HandlerType string

const (
	// HandlerInproc runs a handler registered with core.Register.
	HandlerInproc HandlerType = "inproc"
	// HandlerWhoami echoes the authenticated user.
	HandlerWhoami HandlerType = "whoami"
	// HandlerInstances lists the cached strategy instances.
	HandlerInstances HandlerType = "instances"
	// HandlerEvict removes one cached instance named in the JSON body.
	HandlerEvict HandlerType = "evict"
)
