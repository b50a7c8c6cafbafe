// Package arr provides HTTP clients for the managed media services.
//
// Sonarr serves the episodic library and Radarr the singular one; both speak
// the same v3 API dialect, so the shared Client carries the transport (API
// key header, versioned path prefix, call pacing) and the per-service types
// add the endpoints they own. All mutating calls go through PUT with an
// explicit moveFiles flag so callers control whether the service relocates
// files on disk or merely updates its record.
package arr
