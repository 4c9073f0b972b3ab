package viewer

import (
	"fmt"
	"net/url"

	"github.com/aouyang1/photoslideshow/store"
)

const (
	placeholderImageURL     = "/placeholder-image.jpg"
	placeholderThumbnailURL = "/placeholder-thumbnail.jpg"
)

func photoFileURL(photo store.Photo) string {
	return fmt.Sprintf("/api/photos/%s/file", url.PathEscape(photo.ID))
}

func jumpURL(index int) string {
	return fmt.Sprintf("/actions/jump/%d", index)
}
