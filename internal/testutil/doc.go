// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing histories, sessions and agent sets. They are
// not intended for production usage.
package testutil
