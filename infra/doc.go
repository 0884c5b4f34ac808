// Package infra holds adapters that implement core interfaces against
// external systems such as the MQTT broker or the schedule feed.
package infra
