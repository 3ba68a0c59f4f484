// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

func DumpTarFull(tarBytes []byte) (str string, err error) {
	spewConfig := spew.ConfigState{ //nolint:exhaustivestruct
		Indent:                  "  ",
		DisableCapacities:       true,
		DisablePointerAddresses: true,
		SortKeys:                true,
	}

	ret := new(strings.Builder)

	tarReader := tar.NewReader(bytes.NewReader(tarBytes))
	for {
		header, err := tarReader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}

		if _, err := fmt.Fprintf(ret, "tarHeader = %s", spewConfig.Sdump(header)); err != nil {
			return "", err
		}

		content, err := io.ReadAll(tarReader)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(ret, "tarContent =%s", spewConfig.Sdump(content)); err != nil {
			return "", err
		}
	}

	return ret.String(), nil
}

func DumpTarListing(tarBytes []byte) (str string, err error) {
	ret := new(strings.Builder)

	table := tabwriter.NewWriter(
		ret, // output
		0,   // minwidth
		1,   // tabwidth
		1,   // padding
		' ', // padchar
		0)   // flags
	tarReader := tar.NewReader(bytes.NewReader(tarBytes))
	for {
		header, err := tarReader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}

		if _, err := fmt.Fprintln(table, strings.Join([]string{
			"",
			header.FileInfo().Mode().String(),
			fmt.Sprintf("% 10d", header.Size),
			header.Name,
		}, "\t")); err != nil {
			return "", err
		}

		if _, err := io.ReadAll(tarReader); err != nil {
			return "", err
		}
	}
	if err := table.Flush(); err != nil {
		return "", err
	}

	return ret.String(), nil
}

func writeTarToFile(t *testing.T, filename string, tarBytes []byte) {
	t.Helper()
	if err := os.WriteFile(filename, tarBytes, 0o644); err != nil {
		t.Errorf("error writing tar to file %q: %v", filename, err)
	}
}

// AssertEqualTars compares two uncompressed tar streams entry-by-entry, used to check archive
// contents a pack run produced against a golden fixture without caring about incidental
// differences in the underlying compression backend.
func AssertEqualTars(t *testing.T, exp, act []byte) bool {
	t.Helper()
	if save, _ := strconv.ParseBool(os.Getenv("GOTEST_ENVPACK_SAVETARS")); save {
		writeTarToFile(t, "exp.tar", exp)
		writeTarToFile(t, "act.tar", act)
	}

	// First just compare the listings, in order to "fail fast" and give more readable output.
	expStr, err := DumpTarListing(exp)
	if err != nil {
		t.Errorf("error dumping expected tar listing: %v", err)
		return false
	}
	actStr, err := DumpTarListing(act)
	if err != nil {
		t.Errorf("error dumping actual tar listing: %v", err)
		return false
	}
	if expStr != actStr {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{ //nolint:exhaustivestruct
			A:        difflib.SplitLines(expStr),
			B:        difflib.SplitLines(actStr),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  1,
		})
		t.Errorf("Listing diff:\n%s", diff)
		return false
	}

	// That passed; now do a more comprehensive diff including file contents.
	expStr, err = DumpTarFull(exp)
	if err != nil {
		t.Errorf("error dumping expected tar: %v", err)
		return false
	}
	actStr, err = DumpTarFull(act)
	if err != nil {
		t.Errorf("error dumping actual tar: %v", err)
		return false
	}
	if expStr != actStr {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{ //nolint:exhaustivestruct
			A:        difflib.SplitLines(expStr),
			B:        difflib.SplitLines(actStr),
			FromFile: "Expected",
			ToFile:   "Actual",
			Context:  10,
		})
		t.Errorf("Full diff:\n%s", diff)
		return false
	}

	return true
}
