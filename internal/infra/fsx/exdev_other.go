//go:build !unix

package fsx

import "errors"

func isEXDEV(err error) bool { return false }

func isLinkUnsupported(err error) bool { return errors.Is(err, errors.ErrUnsupported) }
