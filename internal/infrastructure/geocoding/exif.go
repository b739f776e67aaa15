package geocoding

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrNoGPS - в изображении нет GPS-тегов
var ErrNoGPS = errors.New("image has no GPS tags")

// DMSToDecimal переводит градусы/минуты/секунды в десятичные градусы.
// Для южной широты и западной долготы результат отрицательный.
func DMSToDecimal(degrees, minutes, seconds float64, ref string) float64 {
	decimal := degrees + minutes/60 + seconds/3600
	switch strings.ToUpper(strings.Trim(ref, " \x00")) {
	case "S", "W":
		return -decimal
	default:
		return decimal
	}
}

// ReadGPS читает координаты из EXIF файла. Возвращает ErrNoGPS, если EXIF или GPS-теги отсутствуют.
func ReadGPS(path string) (lat, lon float64, err error) {
	const op = "geocoding.ReadGPS"

	f, err := os.Open(path)
	if err != nil {
		return 0, 0, e.Wrap(op, err)
	}
	defer f.Close()

	return decodeGPS(f)
}

func decodeGPS(r io.Reader) (float64, float64, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// Файл без EXIF - не ошибка, а отсутствие данных
		return 0, 0, ErrNoGPS
	}

	lat, err := coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		return 0, 0, err
	}

	lon, err := coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		return 0, 0, err
	}

	return lat, lon, nil
}

func coordinate(x *exif.Exif, valueField, refField exif.FieldName) (float64, error) {
	tag, err := x.Get(valueField)
	if err != nil {
		return 0, ErrNoGPS
	}

	var dms [3]float64
	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, e.Wrap(string(valueField), err)
		}
		if den == 0 {
			continue
		}
		dms[i] = float64(num) / float64(den)
	}

	ref := ""
	if refTag, err := x.Get(refField); err == nil {
		ref, _ = refTag.StringVal()
	}

	return DMSToDecimal(dms[0], dms[1], dms[2], ref), nil
}
