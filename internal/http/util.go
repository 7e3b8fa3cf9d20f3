package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

// Query helpers are lenient: a malformed value reads as absent.

func parseIntQuery(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return def
	}
	return n
}

func parseBoolQuery(r *http.Request, key string) bool {
	on, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return on
}

func optionalQuery(r *http.Request, key string) *string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return &v
	}
	return nil
}

// ParseLimitOffset reads limit and offset. limit lands in [1, maxLimit] and
// defaults to defLimit; offset is never negative.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	maxLimit = max(maxLimit, 1)
	limit = min(max(parseIntQuery(r, "limit", defLimit), 1), maxLimit)
	offset = max(parseIntQuery(r, "offset", 0), 0)
	return limit, offset
}
