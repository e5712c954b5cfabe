/*
Package ports defines the driven ports (interfaces) of the vignette engine.

These interfaces decouple generation and grading from the place the document
lives, so the same store engine runs over a JSON file, Redis, SQLite or memory.

# Key Interfaces

  - StorageBackend: reads and durably writes the single persisted Document.
*/
package ports
