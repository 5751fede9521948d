package cars

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"carshare/internal/app/auth"
	"carshare/internal/app/dto"
	"carshare/internal/app/outbox"
	"carshare/internal/app/policies"
	"carshare/internal/app/uow"
)

// MaxPhotoSize bounds a single upload.
const MaxPhotoSize = 10 << 20

var (
	ErrPhotoRequired     = errors.New("cars: photo body is required")
	ErrPhotoTooLarge     = errors.New("cars: photo exceeds 10 MiB")
	ErrPhotoType         = errors.New("cars: photo must be jpeg, png or webp")
	ErrStorageNotEnabled = errors.New("cars: photo storage is not configured")
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadCarPhotoCommand struct {
	CarID       string
	OwnerID     string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (UploadCarPhotoCommand) Key() string             { return "cars.owner.photo.upload" }
func (UploadCarPhotoCommand) RequiredRole() auth.Role { return auth.RoleOwner }

func (c UploadCarPhotoCommand) Validate() error {
	if strings.TrimSpace(c.CarID) == "" {
		return ErrCarIDRequired
	}
	if c.Body == nil || c.Size <= 0 {
		return ErrPhotoRequired
	}
	if c.Size > MaxPhotoSize {
		return ErrPhotoTooLarge
	}
	if _, ok := photoExtensions[normalizeContentType(c.ContentType)]; !ok {
		return ErrPhotoType
	}
	return nil
}

type UploadCarPhotoHandler struct {
	UoWFactory uow.UoWFactory
	Storage    policies.PhotoStorage
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      policies.Clock
	Logger     *slog.Logger
}

// Handle stores the object before saving the car; an upload whose car update
// fails afterwards is left orphaned in the bucket.
func (h *UploadCarPhotoHandler) Handle(ctx context.Context, cmd UploadCarPhotoCommand) (_ dto.Car, err error) {
	if h.Storage == nil {
		return dto.Car{}, ErrStorageNotEnabled
	}
	unit, ctx, managed, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Car{}, err
	}
	defer uow.Finish(ctx, unit, managed, &err)

	car, err := loadOwnedCar(ctx, unit, cmd.CarID, cmd.OwnerID)
	if err != nil {
		return dto.Car{}, err
	}
	contentType := normalizeContentType(cmd.ContentType)
	key := path.Join("cars", string(car.ID), fmt.Sprintf("%s%s", uuid.NewString(), photoExtensions[contentType]))
	url, err := h.Storage.Upload(ctx, key, io.LimitReader(cmd.Body, MaxPhotoSize), cmd.Size, contentType)
	if err != nil {
		return dto.Car{}, errors.Wrap(err, "upload car photo")
	}
	car.AddPhoto(url, h.Clock.Now())
	if err := unit.Cars().Save(ctx, car); err != nil {
		return dto.Car{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, car); err != nil {
		return dto.Car{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "car photo uploaded", "car_id", car.ID, "key", key, "size", cmd.Size)
	}
	return dto.MapCar(car), nil
}

func normalizeContentType(raw string) string {
	ct := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}
