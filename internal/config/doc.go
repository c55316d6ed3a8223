// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config holds the settings of a deflake session.
//
// A Config starts from Defaults, is overlaid with an optional YAML or HCL file
// and then with flags given on the command line. Validate reports every problem
// at once so that nothing is spawned with a broken configuration.
//
// HCL files may use the variables env (the process environment) and num_cpu:
//
//	command   = "go test -count=1 ./..."
//	pool_size = num_cpu
//	env = {
//	  GOFLAGS = env.GOFLAGS
//	}
package config
