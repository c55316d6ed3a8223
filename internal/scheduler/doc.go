// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler dispatches the runs of a deflake session.
//
// With a pool size of one, runs execute sequentially. With a larger pool, a fixed
// number of slots execute runs concurrently and run i is dispatched as soon as a slot
// becomes free. Either way exactly MaxRuns runs are dispatched unless a failure stops
// the session or the context is cancelled.
package scheduler
