// Command retarget-sim replays a JSON recording of sensor skeleton frames
// through the full correction pipeline against the sample mesh binding and
// writes the resulting avatar root placement and joint tracks to CSV.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/LdDl/retarget-go/retarget"
)

var (
	inputPath  string
	outputPath string
	fps        float64
	seated     bool
	mirror     bool
	floorFix   bool
)

func init() {
	flag.StringVar(&inputPath, "input", "", "path to the JSON frame recording")
	flag.StringVar(&outputPath, "output", "retarget_sim.csv", "path for the CSV output")
	flag.Float64Var(&fps, "fps", 30.0, "frame rate of the recording")
	flag.BoolVar(&seated, "seated", false, "enable seated posture mode")
	flag.BoolVar(&mirror, "mirror", true, "enable the mirror stage")
	flag.BoolVar(&floorFix, "floor", false, "enable the floor offset stage")
	flag.Parse()
}

type recordedJoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	State int     `json:"state"`
}

type recordedRotation struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type recordedFrame struct {
	TrackingState int                         `json:"tracking_state"`
	ClippedEdges  uint8                       `json:"clipped_edges"`
	Joints        map[string]recordedJoint    `json:"joints"`
	Rotations     map[string]recordedRotation `json:"rotations,omitempty"`
	FloorPlane    [4]float64                  `json:"floor_plane"`
	TiltDeg       int                         `json:"tilt_deg"`
}

type recording struct {
	FPS    float64         `json:"fps,omitempty"`
	Frames []recordedFrame `json:"frames"`
}

var jointByName = func() map[string]retarget.JointType {
	byName := make(map[string]retarget.JointType, retarget.JointCount)
	for jt := retarget.JointType(0); jt < retarget.JointCount; jt++ {
		byName[jt.String()] = jt
	}
	return byName
}()

func main() {
	if inputPath == "" {
		log.Fatal("input path must be provided")
	}

	rec, err := readRecording(inputPath)
	if err != nil {
		log.Fatalf("failed to read recording: %v", err)
	}
	if rec.FPS > 0 {
		fps = rec.FPS
	}

	cfg := retarget.DefaultConfig()
	cfg.Mirror = mirror
	cfg.FloorOffset = floorFix
	cfg.Retarget.SeatedMode = seated

	binding, err := retarget.DefaultSampleMeshBinding()
	if err != nil {
		log.Fatalf("failed to build mesh binding: %v", err)
	}
	animator, err := retarget.NewAnimator(cfg, binding)
	if err != nil {
		log.Fatalf("failed to build animator: %v", err)
	}

	log.Printf("Replaying %d frames at %.1f fps (stages: %v)", len(rec.Frames), fps, animator.Stages())

	outFile, err := os.Create(outputPath)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer outFile.Close()

	writer := csv.NewWriter(outFile)
	defer writer.Flush()
	writer.Comma = ';'
	header := []string{"frame", "root_x", "root_y", "root_z",
		"ankle_left_x", "ankle_left_y", "ankle_left_z",
		"wrist_right_x", "wrist_right_y", "wrist_right_z"}
	if err := writer.Write(header); err != nil {
		log.Fatalf("failed to write header: %v", err)
	}

	trackingID := uuid.New()
	dt := 1.0 / fps
	bar := pb.StartNew(len(rec.Frames))

	for i, frame := range rec.Frames {
		bar.Increment()

		skel := buildSkeleton(trackingID, frame)
		fc := &retarget.FrameContext{
			DeltaT:       dt,
			FloorPlane:   mgl64.Vec4{frame.FloorPlane[0], frame.FloorPlane[1], frame.FloorPlane[2], frame.FloorPlane[3]},
			TiltAngleDeg: frame.TiltDeg,
		}
		if err := animator.Update(skel, fc); err != nil {
			log.Fatalf("frame %d: %v", i, err)
		}

		root := animator.BoneTransforms()[0].Col(3)
		ankle := skel.Joints[retarget.JointAnkleLeft].Position
		wrist := skel.Joints[retarget.JointWristRight].Position
		row := []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%f", root[0]), fmt.Sprintf("%f", root[1]), fmt.Sprintf("%f", root[2]),
			fmt.Sprintf("%f", ankle[0]), fmt.Sprintf("%f", ankle[1]), fmt.Sprintf("%f", ankle[2]),
			fmt.Sprintf("%f", wrist[0]), fmt.Sprintf("%f", wrist[1]), fmt.Sprintf("%f", wrist[2]),
		}
		if err := writer.Write(row); err != nil {
			log.Fatalf("failed to write row %d: %v", i, err)
		}
	}

	bar.Finish()
	log.Printf("Done, wrote %s", outputPath)
}

func readRecording(path string) (*recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec := &recording{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func buildSkeleton(trackingID uuid.UUID, frame recordedFrame) *retarget.Skeleton {
	skel := retarget.NewSkeleton()
	skel.TrackingID = trackingID
	skel.TrackingState = retarget.SkeletonTrackingState(frame.TrackingState)
	skel.ClippedEdges = retarget.ClippedEdges(frame.ClippedEdges)

	for name, rj := range frame.Joints {
		jt, ok := jointByName[name]
		if !ok {
			continue
		}
		skel.Joints[jt].Position = mgl64.Vec3{rj.X, rj.Y, rj.Z}
		skel.Joints[jt].TrackingState = retarget.JointTrackingState(rj.State)
	}
	skel.Position = skel.Joints[retarget.JointHipCenter].Position

	for name, rr := range frame.Rotations {
		jt, ok := jointByName[name]
		if !ok {
			continue
		}
		q := mgl64.Quat{W: rr.W, V: mgl64.Vec3{rr.X, rr.Y, rr.Z}}
		skel.BoneOrientations[jt].Hierarchical.SetQuat(q.Normalize())
	}
	skel.UpdateAbsoluteRotations()
	return skel
}
