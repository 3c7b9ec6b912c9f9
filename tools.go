// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

//go:build tools

// Package tools pins build-time tool dependencies.
package tools

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
	_ "github.com/onsi/gomega"
	_ "github.com/stretchr/testify"
)
