package model

// Platform tags the ad platform a batch of rows was exported from.
type Platform string

const (
	PlatformGoogle   Platform = "google"
	PlatformMeta     Platform = "meta"
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
	PlatformLinkedIn Platform = "linkedin"
	PlatformTwitter  Platform = "twitter"
	PlatformUnknown  Platform = "unknown"
)
