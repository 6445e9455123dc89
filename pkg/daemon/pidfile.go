// SPDX-FileCopyrightText: Copyright The Castellan Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"os"
	"strconv"
)

// writePIDFile records the decimal process id followed by a newline,
// overwriting any existing file. No locking: the file is informational, for
// init scripts and tests.
func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
