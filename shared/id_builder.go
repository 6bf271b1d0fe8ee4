package shared

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	ProfileContainerPrefix  = "100505"
	TimelineContainerPrefix = "107603"
	indexPath               = "/api/container/getIndex"
)

// ProfileContainerId selects the upstream profile resource of one author.
func ProfileContainerId(authorId int64) string {
	return ProfileContainerPrefix + strconv.FormatInt(authorId, 10)
}

// TimelineContainerId selects the upstream timeline resource of one author.
func TimelineContainerId(authorId int64) string {
	return TimelineContainerPrefix + strconv.FormatInt(authorId, 10)
}

// IdBuilder makes getIndex URLs against Base, which is either the edge router or the upstream host.
type IdBuilder struct {
	Base string
}

func (idb *IdBuilder) ProfileUrl(authorId int64) string {
	idStr := strconv.FormatInt(authorId, 10)
	return fmt.Sprintf("%s%s?type=uid&value=%s&containerid=%s",
		idb.Base, indexPath, idStr, ProfileContainerId(authorId))
}

func (idb *IdBuilder) TimelineUrl(authorId int64, page int) string {
	// Keep key order stable: url.Values.Encode would sort them
	idStr := strconv.FormatInt(authorId, 10)
	query := fmt.Sprintf("type=uid&value=%s&containerid=%s", idStr, TimelineContainerId(authorId))
	// Upstream's first page takes no page parameter
	if page > 1 {
		query += "&page=" + strconv.Itoa(page)
	}
	return idb.Base + indexPath + "?" + query
}

func (idb *IdBuilder) ImageUrl(rawUrl string) string {
	return fmt.Sprintf("%s/image?url=%s", idb.Base, url.QueryEscape(rawUrl))
}
