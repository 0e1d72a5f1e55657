// Package profile merges desired server profiles and templates onto the
// observed ones: connections and volume attachments merge by identity,
// explicit nulls clear SAN and local storage, and nested boot settings
// merge instead of being replaced.
package profile
