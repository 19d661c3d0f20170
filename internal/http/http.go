// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
)

type Server interface {
	Start(address string) error
	Shutdown(context.Context) error
}
