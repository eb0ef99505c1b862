package crop

import "fmt"

type Severity string

const (
	SeverityNormal Severity = "normal"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Indicator — подпись и уровень уверенности авто-кадра для текущего фото.
// Не хранится, пересчитывается при каждой загрузке.
type Indicator struct {
	Label    string
	Severity Severity
	Percent  int
}

func SeverityFor(confidence float64) Severity {
	switch {
	case confidence >= 0.8:
		return SeverityNormal
	case confidence >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// IndicatorFor строит индикатор по метаданным предложения.
// Без предложения считаем кадр центральным с уверенностью 0.5.
func IndicatorFor(p Photo) Indicator {
	conf := 0.5
	method := MethodCenter
	if p.Suggestion != nil {
		conf = p.Suggestion.Confidence
		if p.Suggestion.Method != "" {
			method = p.Suggestion.Method
		}
	}

	ind := Indicator{
		Severity: SeverityFor(conf),
		Percent:  int(conf*100 + 0.5),
	}
	switch method {
	case MethodFace:
		faces := p.FacesFound
		if faces <= 1 {
			ind.Label = "Найдено лицо"
		} else {
			ind.Label = fmt.Sprintf("Найдено лиц: %d", faces)
			// несколько лиц — кадр почти всегда компромиссный
			ind.Severity = SeverityMedium
		}
	case MethodSaliency:
		ind.Label = "Главный объект"
	default:
		if conf >= 0.5 {
			ind.Label = "По центру"
		} else {
			ind.Label = "Низкая уверенность"
		}
	}
	return ind
}
