package multipass

import "time"

// Result labels recorded for every Authenticate call.
const (
	ResultSuccess         = "success"
	ResultRejected        = "rejected"
	ResultError           = "error"
	ResultUnknownProvider = "unknown_provider"
)

// Observer receives cache and authentication events. The metrics package
// implements it with prometheus collectors.
type Observer interface {
	InstanceConstructed(key Key, took time.Duration)
	ConstructFailed(key Key, err error)
	InstanceEvicted(key Key, idle time.Duration)
	Authenticated(key Key, result string)
	CacheSize(n int)
}

type nopObserver struct{}

func (nopObserver) InstanceConstructed(Key, time.Duration) {}
func (nopObserver) ConstructFailed(Key, error)             {}
func (nopObserver) InstanceEvicted(Key, time.Duration)     {}
func (nopObserver) Authenticated(Key, string)              {}
func (nopObserver) CacheSize(int)                          {}
