// Copyright (C) 2026 Aether Foundation (oss@aethergrid.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guard

import "fmt"

// CompatibilityError is a structural rejection: the atom's op code and the
// reason its inputs don't fit, as typed fields rather than message text.
type CompatibilityError struct {
	OpCode uint16
	Reason string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("incompatible atom (op %d): %s", e.OpCode, e.Reason)
}
