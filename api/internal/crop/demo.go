package crop

// DemoPhotos — встроенный список на случай, когда нет ни заказа, ни данных от хоста.
func DemoPhotos() []Photo {
	portrait := 0.76
	instax := 0.628
	classic := 0.667
	return []Photo{
		{
			ID:          "demo-1",
			URL:         "https://picsum.photos/id/64/1200/1600",
			Label:       "Полароид стандарт",
			Format:      "polaroid_standard",
			AspectRatio: &portrait,
			Suggestion: &Suggestion{
				Rect:       Rect{X: 144, Y: 310, Width: 912, Height: 1200, ScaleX: 1, ScaleY: 1},
				Confidence: 0.95,
				Method:     MethodFace,
			},
			FacesFound: 1,
		},
		{
			ID:          "demo-2",
			URL:         "https://picsum.photos/id/1015/1600/1067",
			Label:       "Инстакс",
			Format:      "instax",
			AspectRatio: &instax,
			Suggestion: &Suggestion{
				Rect:       Rect{X: 430, Y: 0, Width: 670, Height: 1067, ScaleX: 1, ScaleY: 1},
				Confidence: 0.7,
				Method:     MethodSaliency,
			},
		},
		{
			ID:          "demo-3",
			URL:         "https://picsum.photos/id/1025/1600/1200",
			Label:       "Классика",
			Format:      "classic",
			AspectRatio: &classic,
			Suggestion: &Suggestion{
				Rect:       Rect{X: 400, Y: 0, Width: 800, Height: 1200, ScaleX: 1, ScaleY: 1},
				Confidence: 0.5,
				Method:     MethodCenter,
			},
		},
	}
}
