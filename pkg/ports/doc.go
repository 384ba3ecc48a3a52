// Package ports defines the interfaces between the rewind core and its
// external collaborators: the language model, the tool dispatcher, and the
// checkpoint store. Adapters live under pkg/adapters.
package ports
