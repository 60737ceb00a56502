package retarget

// JointType identifies one of the 20 skeletal joints delivered by the sensor.
type JointType int

const (
	JointHipCenter JointType = iota
	JointSpine
	JointShoulderCenter
	JointHead
	JointShoulderLeft
	JointElbowLeft
	JointWristLeft
	JointHandLeft
	JointShoulderRight
	JointElbowRight
	JointWristRight
	JointHandRight
	JointHipLeft
	JointKneeLeft
	JointAnkleLeft
	JointFootLeft
	JointHipRight
	JointKneeRight
	JointAnkleRight
	JointFootRight
)

// JointCount is the size of the closed joint enum.
const JointCount = 20

var jointNames = [JointCount]string{
	"HipCenter", "Spine", "ShoulderCenter", "Head",
	"ShoulderLeft", "ElbowLeft", "WristLeft", "HandLeft",
	"ShoulderRight", "ElbowRight", "WristRight", "HandRight",
	"HipLeft", "KneeLeft", "AnkleLeft", "FootLeft",
	"HipRight", "KneeRight", "AnkleRight", "FootRight",
}

func (jt JointType) String() string {
	if jt < 0 || jt >= JointCount {
		return "Unknown"
	}
	return jointNames[jt]
}

// JointTrackingState is the per-joint tracking confidence reported by the sensor.
type JointTrackingState int

const (
	JointNotTracked JointTrackingState = iota
	JointInferred
	JointTracked
)

// SkeletonTrackingState is the whole-skeleton tracking confidence.
type SkeletonTrackingState int

const (
	SkeletonNotTracked SkeletonTrackingState = iota
	SkeletonPositionOnly
	SkeletonTracked
)

// ClippedEdges is a bitset of camera field-of-view edges cutting off the body.
type ClippedEdges uint8

const (
	ClippedNone   ClippedEdges = 0
	ClippedRight  ClippedEdges = 1 << 0
	ClippedLeft   ClippedEdges = 1 << 1
	ClippedTop    ClippedEdges = 1 << 2
	ClippedBottom ClippedEdges = 1 << 3
)

// Has reports whether the given edge bit is set.
func (ce ClippedEdges) Has(edge ClippedEdges) bool {
	return ce&edge != 0
}

// jointParents is the static bone hierarchy. The hip center is its own root.
var jointParents = [JointCount]JointType{
	JointHipCenter:      JointHipCenter,
	JointSpine:          JointHipCenter,
	JointShoulderCenter: JointSpine,
	JointHead:           JointShoulderCenter,
	JointShoulderLeft:   JointShoulderCenter,
	JointElbowLeft:      JointShoulderLeft,
	JointWristLeft:      JointElbowLeft,
	JointHandLeft:       JointWristLeft,
	JointShoulderRight:  JointShoulderCenter,
	JointElbowRight:     JointShoulderRight,
	JointWristRight:     JointElbowRight,
	JointHandRight:      JointWristRight,
	JointHipLeft:        JointHipCenter,
	JointKneeLeft:       JointHipLeft,
	JointAnkleLeft:      JointKneeLeft,
	JointFootLeft:       JointAnkleLeft,
	JointHipRight:       JointHipCenter,
	JointKneeRight:      JointHipRight,
	JointAnkleRight:     JointKneeRight,
	JointFootRight:      JointAnkleRight,
}

// ParentJoint returns the start joint of the bone ending at jt.
// The hierarchy root (hip center) is its own parent.
func ParentJoint(jt JointType) JointType {
	return jointParents[jt]
}

// HierarchicalJointOrder lists all joints so that every parent appears before
// any of its children. Stages recomputing absolute rotations must iterate in
// this order.
var HierarchicalJointOrder = [JointCount]JointType{
	JointHipCenter, JointSpine, JointShoulderCenter, JointHead,
	JointShoulderLeft, JointElbowLeft, JointWristLeft, JointHandLeft,
	JointShoulderRight, JointElbowRight, JointWristRight, JointHandRight,
	JointHipLeft, JointKneeLeft, JointAnkleLeft, JointFootLeft,
	JointHipRight, JointKneeRight, JointAnkleRight, JointFootRight,
}

// mirrorJoints maps each joint to its left/right counterpart. Joints on the
// body midline map to themselves.
var mirrorJoints = [JointCount]JointType{
	JointHipCenter:      JointHipCenter,
	JointSpine:          JointSpine,
	JointShoulderCenter: JointShoulderCenter,
	JointHead:           JointHead,
	JointShoulderLeft:   JointShoulderRight,
	JointElbowLeft:      JointElbowRight,
	JointWristLeft:      JointWristRight,
	JointHandLeft:       JointHandRight,
	JointShoulderRight:  JointShoulderLeft,
	JointElbowRight:     JointElbowLeft,
	JointWristRight:     JointWristLeft,
	JointHandRight:      JointHandLeft,
	JointHipLeft:        JointHipRight,
	JointKneeLeft:       JointKneeRight,
	JointAnkleLeft:      JointAnkleRight,
	JointFootLeft:       JointFootRight,
	JointHipRight:       JointHipLeft,
	JointKneeRight:      JointKneeLeft,
	JointAnkleRight:     JointAnkleLeft,
	JointFootRight:      JointFootLeft,
}

// MirrorJoint returns the left/right counterpart of jt.
func MirrorJoint(jt JointType) JointType {
	return mirrorJoints[jt]
}

// isFoot reports whether jt is one of the foot joints. Feet are the noisiest
// joints the sensor reports, so orientation filtering relaxes their radii.
func isFoot(jt JointType) bool {
	return jt == JointFootLeft || jt == JointFootRight
}
