package generator

// The option catalogs are ordered: a variant's controls are chosen by index, so
// reordering or editing an entry changes every batch generated afterwards.
var (
	cameraOptions = []string{
		"eye-level medium shot",
		"low-angle wide shot",
		"high-angle wide shot",
		"over-the-shoulder shot",
		"close-up",
		"extreme close-up",
		"dutch angle",
		"bird's-eye view",
	}

	emotionOptions = []string{
		"calm",
		"joyful",
		"determined",
		"melancholic",
		"anxious",
		"curious",
		"defiant",
		"awestruck",
	}

	motionOptions = []string{
		"static pose",
		"slow walk",
		"mid-stride run",
		"turning head",
		"reaching forward",
		"jumping",
		"hair and cloth caught in wind",
		"subtle breathing",
	}
)

// CameraOptions returns a copy of the camera catalog.
func CameraOptions() []string { return append([]string(nil), cameraOptions...) }

// EmotionOptions returns a copy of the emotion catalog.
func EmotionOptions() []string { return append([]string(nil), emotionOptions...) }

// MotionOptions returns a copy of the motion catalog.
func MotionOptions() []string { return append([]string(nil), motionOptions...) }
