// Package plugin defines the contract between the radial menu host and its
// plugins: the lifecycle interface, the initialization context, the five
// provider contracts, and the value types exchanged across that boundary
// (versions, manifests, menu context snapshots, entries, panels and action
// results). It also carries the host-side plugin configuration, the
// capability isolation policy and the loader for plugins built as Go shared
// objects.
package plugin
