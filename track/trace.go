/*------------------------------------------------------------------------------
* trace.go : level-gated trace logging
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* same two-function convention as the rest of this codebase's ambient
* logging (Trace for one-shot messages, Tracet for elapsed-time
* prefixed messages), gated by a package-level level rather than a
* third-party structured logger - see DESIGN.md.
 */
package track

import (
	"fmt"
	"io"
	"os"
	"time"
)

var (
	traceOut   io.Writer = os.Stderr
	traceLevel int       = 2
	traceStart           = time.Now()
)

/* TraceLevel sets the minimum level that reaches traceOut. */
func TraceLevel(level int) { traceLevel = level }

/* TraceOutput redirects trace output, e.g. to a log file opened by the
 * owning process. */
func TraceOutput(w io.Writer) { traceOut = w }

/* Trace prints the message when level <= traceLevel and drops it
 * otherwise. */
func Trace(level int, format string, v ...interface{}) {
	if level > traceLevel {
		return
	}
	fmt.Fprintf(traceOut, "%d "+format, append([]interface{}{level}, v...)...)
}

/* Tracet prefixes the message with seconds elapsed since process
 * start, matching the teacher library's Tracet. */
func Tracet(level int, format string, v ...interface{}) {
	if level > traceLevel {
		return
	}
	elapsed := time.Since(traceStart).Seconds()
	fmt.Fprintf(traceOut, "%d %9.3f: "+format, append([]interface{}{level, elapsed}, v...)...)
}
