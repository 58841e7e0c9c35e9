// Package infra groups the adapters behind the core interfaces: route
// storage backends, the MQTT notifier, metrics sinks and the zerolog logger.
package infra
