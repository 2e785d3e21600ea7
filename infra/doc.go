// Package infra contains technical adapters: the MQTT client, motor
// drivers, Home Assistant discovery and metrics exporters. These packages
// should depend only on the interfaces defined in the core packages.
package infra
