package analysis

import (
	"math"

	"github.com/fpang/video-frame-finder/internal/fault"
	"github.com/fpang/video-frame-finder/internal/jsonutil"
)

// Judgment is the structured verdict for one video: whether a kid saying
// "67" appears, and if so at which second of playback.
type Judgment struct {
	Found  bool    `json:"found"`
	Second float64 `json:"second"`
}

// judgmentSystemInstruction keeps the model on the output contract. Models
// drift into prose without it, and prose fails the strict parse.
const judgmentSystemInstruction = `You are a precise video analysis tool. You watch footage and answer with a single JSON object. You never add commentary, markdown, or fields beyond the requested ones.`

// judgmentPrompt is the single question asked of every video.
const judgmentPrompt = `Watch this video and find the first moment where a kid says the number "67" while showing it with their hands or fingers.

Respond with ONLY a JSON object in this exact form:
{"found": <true or false>, "second": <playback time as a decimal number>}

If no such moment exists anywhere in the video, respond with:
{"found": false, "second": 0}`

// ParseJudgment decodes the model's reply into a Judgment. Fences and prose
// around the object are tolerated; unknown fields inside it are not. A found
// verdict with an unusable second is rejected rather than passed downstream,
// because the extraction stage would turn it into a nonsense frame index.
func ParseJudgment(text string) (Judgment, error) {
	j, err := jsonutil.DecodeStrict[Judgment](text)
	if err != nil {
		return Judgment{}, fault.Wrap(fault.KindAnalysisMalformed, "undecodable judgment from analysis model", err)
	}
	if j.Found {
		if math.IsNaN(j.Second) || math.IsInf(j.Second, 0) {
			return Judgment{}, fault.New(fault.KindAnalysisMalformed, "judgment second is not a finite number")
		}
		if j.Second < 0 {
			return Judgment{}, fault.Newf(fault.KindAnalysisMalformed, "judgment second %.3f is negative", j.Second)
		}
	}
	return j, nil
}
