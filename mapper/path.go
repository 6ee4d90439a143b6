package mapper

import "strings"

// deviceNameFromPath extracts the device segment of a signal path
// formatted "/<device_name>/<signal_name>" (spec.md §4.F).
func deviceNameFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return ""
}

// signalNameFromPath extracts the signal segment of the same path.
func signalNameFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return ""
}
