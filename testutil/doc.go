// Package testutil provides git repository, key and context fixtures for
// tests.
package testutil
