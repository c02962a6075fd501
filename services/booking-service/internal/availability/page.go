package availability

import (
	"strconv"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func pageKey(p model.PageRequest) string {
	return strconv.Itoa(p.Page) + "x" + strconv.Itoa(p.Limit)
}
