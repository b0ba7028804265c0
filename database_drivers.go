//go:build !test

// SQL drivers for the database catalog are linked only into the binary; the
// package tests import the one engine they need directly.
package main

import "forest-machine-map/pkg/database/drivers"

func init() {
	drivers.Ready()
}
