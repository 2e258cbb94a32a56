package files

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/models"
)

var validate = validator.New()

type uploadInput struct {
	Name        string `validate:"required,max=255"`
	ContentType string `validate:"required"`
	Size        int64  `validate:"gte=0"`
}

// ValidateUpload checks a pending upload against required fields and the
// owner's plan limits before any I/O happens.
func ValidateUpload(owner *models.User, file *models.FileRecord) error {
	in := uploadInput{Name: file.Name, ContentType: file.ContentType, Size: file.Size}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	plan := owner.Plan
	if file.Size > plan.MaxFileSize() {
		return fmt.Errorf("%w: file exceeds the %d byte limit of the %s plan",
			common.ErrValidation, plan.MaxFileSize(), plan)
	}
	if !plan.AllowsContentType(file.ContentType) {
		return fmt.Errorf("%w: content type %s is not available on the %s plan",
			common.ErrValidation, file.ContentType, plan)
	}
	if owner.StorageUsed+file.Size > plan.StorageLimit() {
		return fmt.Errorf("%w: storage quota exceeded", common.ErrValidation)
	}
	return nil
}
