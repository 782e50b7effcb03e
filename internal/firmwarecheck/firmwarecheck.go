/*------------------------------------------------------------------------------
* firmwarecheck.go : NAP firmware compatibility gate (§10.7)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* the fixed-point scaling in track/consts.go (NAP_*_UNITS_PER_*) is
* derived for a specific NAP register layout; arming channels against
* an older image would silently mis-scale every NCO write, so this
* gate refuses to proceed rather than track garbage.
 */
package firmwarecheck

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

/* MinSupported is the oldest NAP firmware version this core's
 * fixed-point scaling was derived for. */
const MinSupported = "1.2.0"

/* Check parses reported and rejects it if older than MinSupported. */
func Check(reported string) error {
	min, err := version.NewVersion(MinSupported)
	if err != nil {
		return fmt.Errorf("firmwarecheck: bad MinSupported constant %q: %w", MinSupported, err)
	}
	got, err := version.NewVersion(reported)
	if err != nil {
		return fmt.Errorf("firmwarecheck: unparseable firmware version %q: %w", reported, err)
	}
	if got.LessThan(min) {
		return fmt.Errorf("firmwarecheck: NAP firmware %s is older than minimum supported %s", got, min)
	}
	return nil
}
