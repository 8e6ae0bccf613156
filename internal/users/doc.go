// Package users implements the demo user directory: the User model, the Store
// abstraction with in-memory and SQL implementations, and the Service that
// validates input before it reaches a store.
package users
