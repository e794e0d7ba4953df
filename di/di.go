// Package di wires the hook engine into a samber/do injector
package di

import "github.com/samber/do/v2"

// Injector alias of do.Injector
type Injector = do.Injector

// RootScope alias of do.RootScope
type RootScope = do.RootScope

// New creates a root injector
var New = do.New
