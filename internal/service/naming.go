package service

import (
	"path"
	"strings"

	"github.com/printshelf/printshelf/internal/model"
)

const modelExt = ".3mf"

// defaultImageExt is used when a source image carries no extension.
const defaultImageExt = ".jpg"

// OutputFolderName derives the output folder for a model file by stripping
// the .3mf suffix, whatever its casing. "foo.3MF" and "foo.3mf" both map
// to "foo".
func OutputFolderName(modelName string) string {
	if len(modelName) >= len(modelExt) && strings.EqualFold(modelName[len(modelName)-len(modelExt):], modelExt) {
		return modelName[:len(modelName)-len(modelExt)]
	}
	return modelName
}

// destImageFileName builds the output object file name for a renamed
// image. The extension of the original is preserved as-is, casing
// included; an extensionless original defaults to .jpg.
func destImageFileName(r model.ImageRename) string {
	ext := path.Ext(r.OriginalName)
	if ext == "" {
		ext = defaultImageExt
	}
	return r.NewName + ext
}
