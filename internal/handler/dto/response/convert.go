package response

import (
	"time"

	"storefront-checkout/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// Responses carry ids as strings and timestamps as unix seconds.
var copyOption = copier.Option{
	DeepCopy: true,
	Converters: []copier.TypeConverter{
		{
			SrcType: uuid.UUID{},
			DstType: copier.String,
			Fn: func(src any) (any, error) {
				return src.(uuid.UUID).String(), nil
			},
		},
		{
			SrcType: time.Time{},
			DstType: int64(0),
			Fn: func(src any) (any, error) {
				return src.(time.Time).Unix(), nil
			},
		},
		{
			SrcType: &time.Time{},
			DstType: (*int64)(nil),
			Fn: func(src any) (any, error) {
				t, _ := src.(*time.Time)
				if t == nil {
					return (*int64)(nil), nil
				}
				unix := t.Unix()
				return &unix, nil
			},
		},
	},
}

func copyInto(dst, src any) error {
	if err := copier.CopyWithOption(dst, src, copyOption); err != nil {
		return errs.Wrap(err, "failed to build response")
	}
	return nil
}
