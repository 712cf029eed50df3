package generator

import (
	"slices"
	"strconv"
	"strings"
)

// constraints describes what a provider model accepts.
type constraints struct {
	minDuration  int
	maxDuration  int
	durations    []int // when set, only these values are accepted
	minImages    int
	maxImages    int
	aspectRatios []string
	qualities    []string
}

// withDefaults fills unset request fields with the package defaults.
func withDefaults(req Request) Request {
	if req.DurationSeconds == 0 {
		req.DurationSeconds = DefaultDurationSeconds
	}
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultAspectRatio
	}
	if req.Quality == "" {
		req.Quality = DefaultQuality
	}
	return req
}

// check validates a defaulted request against the provider limits.
func (c constraints) check(provider string, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if len(c.durations) > 0 {
		if !slices.Contains(c.durations, req.DurationSeconds) {
			return validationf("%s: duration must be one of %s seconds, got %d",
				provider, joinInts(c.durations), req.DurationSeconds)
		}
	} else if req.DurationSeconds < c.minDuration || req.DurationSeconds > c.maxDuration {
		return validationf("%s: duration must be between %d and %d seconds, got %d",
			provider, c.minDuration, c.maxDuration, req.DurationSeconds)
	}

	if req.Kind == KindImageToVideo {
		n := len(req.SourceImages)
		if n < c.minImages || n > c.maxImages {
			if c.minImages == c.maxImages {
				return validationf("%s: image-to-video takes exactly %d image(s), got %d", provider, c.maxImages, n)
			}
			return validationf("%s: image-to-video takes %d to %d images, got %d", provider, c.minImages, c.maxImages, n)
		}
	} else if len(req.SourceImages) > 0 {
		return validationf("%s: source images are only accepted for %s", provider, KindImageToVideo)
	}

	if !slices.Contains(c.aspectRatios, req.AspectRatio) {
		return validationf("%s: aspect ratio must be one of %s, got %q",
			provider, strings.Join(c.aspectRatios, ", "), req.AspectRatio)
	}
	if !slices.Contains(c.qualities, req.Quality) {
		return validationf("%s: quality must be one of %s, got %q",
			provider, strings.Join(c.qualities, ", "), req.Quality)
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
