// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_getURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		url       string
		wantErr   error
		wantBytes []byte
		wantName  string
	}{
		{
			name:    "empty url returns error",
			url:     "",
			wantErr: ErrGetConfigFile,
		},
		{
			name:    "remote get fails",
			url:     "git::http://notexist//file.yaml",
			wantErr: ErrGetConfigFile,
		},
		{
			name:      "local file",
			url:       "./testdata/deflake.yaml",
			wantBytes: []byte("command: \"true\"\nmax_runs: 3\n"),
			wantName:  "deflake.yaml",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, name, err := getURL(context.Background(), tc.url)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, b)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantBytes, b)
			assert.Equal(t, tc.wantName, name)
		})
	}
}

func Test_splitFileNameFromGetterURL(t *testing.T) {
	testCases := []struct {
		url      string
		wantURL  string
		wantFile string
	}{
		{
			url:      "git::https://github.com/org/repo//configs/deflake.yaml?ref=v1.0.0",
			wantURL:  "git::https://github.com/org/repo//configs?ref=v1.0.0",
			wantFile: "deflake.yaml",
		},
		{
			url:      "git::https://github.com/org/repo//deflake.hcl",
			wantURL:  "git::https://github.com/org/repo",
			wantFile: "deflake.hcl",
		},
		{
			url: "https://example.com/deflake.yaml",
		},
		{
			url: "git::https://github.com/org/repo//",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			u, f := splitFileNameFromGetterURL(tc.url)
			assert.Equal(t, tc.wantURL, u)
			assert.Equal(t, tc.wantFile, f)
		})
	}
}
