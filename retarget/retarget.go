package retarget

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// AxisMap permutes and sign-flips a quaternion's vector components, mapping
// the sensor's axis convention onto a target bone's local frame. These are
// coordinate-axis permutations, not generic rotations; each target mesh needs
// its own calibrated table.
type AxisMap struct {
	// Order names which source component (0=X, 1=Y, 2=Z) feeds each target
	// component.
	Order [3]int
	// Sign flips applied after permutation.
	Sign [3]float64
}

// IdentityAxisMap passes components through unchanged.
func IdentityAxisMap() AxisMap {
	return AxisMap{Order: [3]int{0, 1, 2}, Sign: [3]float64{1, 1, 1}}
}

// Apply remaps q's vector part. The scalar part is untouched.
func (am AxisMap) Apply(q mgl64.Quat) mgl64.Quat {
	src := [3]float64{q.V[0], q.V[1], q.V[2]}
	return mgl64.Quat{
		W: q.W,
		V: mgl64.Vec3{
			am.Sign[0] * src[am.Order[0]],
			am.Sign[1] * src[am.Order[1]],
			am.Sign[2] * src[am.Order[2]],
		},
	}
}

// BoneMapping binds one sensor joint to one target mesh bone, together with
// the empirical corrective rotation and axis remap calibrated for that mesh.
type BoneMapping struct {
	Joint      JointType
	TargetBone int
	// Adjustment is a fixed corrective rotation compensating for the
	// differing default poses of the sensor and mesh skeletons.
	Adjustment mgl64.Quat
	Axes       AxisMap
	// CombineWithParent composes the parent bone's hierarchical rotation
	// in before remapping. The sample mesh needs this on the knees, whose
	// local frames already encode the hip-relative composition.
	CombineWithParent bool
}

// MeshBinding is the setup-time description of a target mesh skeleton:
// its bind-pose root transform, bone count, root bone index, and the
// joint-to-bone mapping table. Construction validates everything fatal;
// per-frame retargeting never fails after a binding is built.
type MeshBinding struct {
	BindRoot  mgl64.Mat4
	BoneCount int
	RootBone  int
	Mappings  []BoneMapping

	byJoint [JointCount]int // index into Mappings, -1 when unmapped
}

// NewMeshBinding validates and builds a mesh binding.
func NewMeshBinding(bindRoot mgl64.Mat4, boneCount, rootBone int, mappings []BoneMapping) (*MeshBinding, error) {
	if boneCount <= 0 {
		return nil, errors.New("target mesh has no usable skinning metadata: zero bones")
	}
	if rootBone < 0 || rootBone >= boneCount {
		return nil, errors.Errorf("root bone index %d out of range [0,%d)", rootBone, boneCount)
	}
	if bindRoot.Det() == 0 {
		return nil, errors.New("bind root matrix is singular")
	}

	mb := &MeshBinding{
		BindRoot:  bindRoot,
		BoneCount: boneCount,
		RootBone:  rootBone,
		Mappings:  mappings,
	}
	for i := range mb.byJoint {
		mb.byJoint[i] = -1
	}
	for i, m := range mappings {
		if m.Joint < 0 || m.Joint >= JointCount {
			return nil, errors.Errorf("mapping %d references unknown joint %d", i, m.Joint)
		}
		if m.TargetBone < 0 || m.TargetBone >= boneCount {
			return nil, errors.Errorf("mapping for %s targets bone %d out of range [0,%d)",
				m.Joint, m.TargetBone, boneCount)
		}
		if mb.byJoint[m.Joint] != -1 {
			return nil, errors.Errorf("duplicate mapping for joint %s", m.Joint)
		}
		mb.byJoint[m.Joint] = i
	}
	return mb, nil
}

// Mapping returns the mapping for jt, or nil when the joint is unmapped.
func (mb *MeshBinding) Mapping(jt JointType) *BoneMapping {
	idx := mb.byJoint[jt]
	if idx < 0 {
		return nil
	}
	return &mb.Mappings[idx]
}

// RetargetConfig holds the per-avatar retargeting tunables.
type RetargetConfig struct {
	// ScaleFactor converts sensor meters into target model units.
	ScaleFactor float64
	// FixedHeight, when positive, overrides the root bone's vertical
	// translation with a constant model-space height.
	FixedHeight float64
	// SeatedMode treats the shoulder center as the effective root and
	// overwrites the leg bones with a fixed seated posture.
	SeatedMode bool
	// LeanCorrection enables the backward-lean reduction on the spine.
	LeanCorrection bool
}

// DefaultRetargetConfig returns the stock retargeting configuration.
func DefaultRetargetConfig() RetargetConfig {
	return RetargetConfig{
		ScaleFactor:    1.0,
		LeanCorrection: true,
	}
}

// Retargeter maps the corrected hierarchical rotations of the sensor skeleton
// onto the bone array of a target mesh. Per-joint behavior is a lookup table
// of handlers over the binding's mapping data, not a branching switch.
type Retargeter struct {
	binding    *MeshBinding
	cfg        RetargetConfig
	transforms []mgl64.Mat4
	handlers   [JointCount]boneHandler
}

type boneHandler func(rt *Retargeter, skel *Skeleton, m *BoneMapping)

// NewRetargeter builds a retargeter over a validated binding.
func NewRetargeter(binding *MeshBinding, cfg RetargetConfig) (*Retargeter, error) {
	if binding == nil {
		return nil, errors.New("nil mesh binding")
	}
	if cfg.ScaleFactor == 0 {
		return nil, errors.New("scale factor must be non-zero")
	}
	rt := &Retargeter{
		binding:    binding,
		cfg:        cfg,
		transforms: make([]mgl64.Mat4, binding.BoneCount),
	}
	rt.resetTransforms()
	for _, m := range binding.Mappings {
		switch m.Joint {
		case JointHipCenter, JointShoulderCenter:
			rt.handlers[m.Joint] = (*Retargeter).retargetRootBone
		default:
			rt.handlers[m.Joint] = (*Retargeter).retargetBone
		}
	}
	return rt, nil
}

// BoneTransforms returns the current per-bone local transform array, indexed
// by the target mesh's own bone numbering. This is a reference, not a copy.
func (rt *Retargeter) BoneTransforms() []mgl64.Mat4 {
	return rt.transforms
}

func (rt *Retargeter) resetTransforms() {
	for i := range rt.transforms {
		rt.transforms[i] = mgl64.Ident4()
	}
}

// Retarget maps the skeleton's hierarchical rotations onto the target bone
// array. rootPosition is the world placement source (normally the stabilized
// hip center, or the shoulder center in seated mode). Unmapped sensor joints
// leave their target bones at bind-pose identity.
func (rt *Retargeter) Retarget(skel *Skeleton, rootPosition mgl64.Vec3) []mgl64.Mat4 {
	rt.resetTransforms()
	if !skel.IsTracked() {
		return rt.transforms
	}

	for _, jt := range HierarchicalJointOrder {
		if skel.Joints[jt].TrackingState == JointNotTracked {
			continue
		}
		if rt.cfg.SeatedMode && jt == JointHipCenter {
			// Shoulder center acts as the effective root when seated.
			continue
		}
		m := rt.binding.Mapping(jt)
		if m == nil {
			continue
		}
		if handler := rt.handlers[jt]; handler != nil {
			handler(rt, skel, m)
		}
	}

	rt.placeRoot(rootPosition)

	if rt.cfg.SeatedMode {
		rt.applySeatedPosture()
	}
	return rt.transforms
}

// retargetRootBone expresses the sensor's root rotation in the target's root
// bone local space: translation is stripped from both the bind root and the
// bone's existing transform, both are inverted, and the sensor rotation is
// sandwiched between them.
func (rt *Retargeter) retargetRootBone(skel *Skeleton, m *BoneMapping) {
	if m.Joint == JointShoulderCenter && !rt.effectiveRootIsShoulder(skel) {
		// Shoulder center only roots the hierarchy when the hip cannot.
		rt.retargetBone(skel, m)
		return
	}
	bindRot := rotationOnly(rt.binding.BindRoot)
	boneRot := rotationOnly(rt.transforms[m.TargetBone])
	sensorRot := rotationOnly(skel.BoneOrientations[m.Joint].Hierarchical.Mat)
	rt.transforms[m.TargetBone] = bindRot.Inv().Mul4(sensorRot).Mul4(boneRot.Inv())
}

func (rt *Retargeter) effectiveRootIsShoulder(skel *Skeleton) bool {
	return rt.cfg.SeatedMode || skel.Joints[JointHipCenter].TrackingState == JointNotTracked
}

// retargetBone is the data-driven handler: corrective rotation, then axis
// remap, then write-back.
func (rt *Retargeter) retargetBone(skel *Skeleton, m *BoneMapping) {
	q := skel.BoneOrientations[m.Joint].Hierarchical.Quat
	if m.CombineWithParent {
		parent := ParentJoint(m.Joint)
		q = skel.BoneOrientations[parent].Hierarchical.Quat.Mul(q)
	}
	if m.Joint == JointSpine && rt.cfg.LeanCorrection {
		q = backwardLeanAdjustment(skel).Mul(q)
	}
	q = m.Adjustment.Mul(q)
	q = m.Axes.Apply(q).Normalize()
	rt.transforms[m.TargetBone] = q.Mat4()
}

// placeRoot writes the root bone translation from the sensor-space placement,
// scaled into model units, with the optional fixed-height override.
func (rt *Retargeter) placeRoot(rootPosition mgl64.Vec3) {
	translation := rootPosition.Mul(rt.cfg.ScaleFactor)
	if rt.cfg.FixedHeight > 0 {
		translation[1] = rt.cfg.FixedHeight
	}
	m := rt.transforms[rt.binding.RootBone]
	m.SetCol(3, mgl64.Vec4{translation[0], translation[1], translation[2], 1})
	rt.transforms[rt.binding.RootBone] = m
}

// Seated posture constants for the sample mesh: thighs forward, shins down.
var (
	seatedKneeRotation  = mgl64.QuatRotate(mgl64.DegToRad(90), unitX)
	seatedAnkleRotation = mgl64.QuatRotate(mgl64.DegToRad(-10), unitX)
)

// applySeatedPosture overwrites the leg bones with fixed seated-pose
// rotations, ignoring whatever the sensor reported for them.
func (rt *Retargeter) applySeatedPosture() {
	for _, jt := range []JointType{JointKneeLeft, JointKneeRight} {
		if m := rt.binding.Mapping(jt); m != nil {
			rt.transforms[m.TargetBone] = seatedKneeRotation.Mat4()
		}
	}
	for _, jt := range []JointType{JointAnkleLeft, JointAnkleRight} {
		if m := rt.binding.Mapping(jt); m != nil {
			rt.transforms[m.TargetBone] = seatedAnkleRotation.Mat4()
		}
	}
}

// backwardLeanAdjustment reduces the spine's forward-tilt component when the
// combined hip+spine rotation leans back past vertical, compensating for the
// sample mesh's authored lean range. The (angle/2)*-(cos(angle)/2) magnitude
// is an empirically tuned heuristic; keep its numeric behavior intact.
func backwardLeanAdjustment(skel *Skeleton) mgl64.Quat {
	hipQ := skel.BoneOrientations[JointHipCenter].Hierarchical.Quat
	spineQ := skel.BoneOrientations[JointSpine].Hierarchical.Quat
	spineDir := hipQ.Mul(spineQ).Rotate(unitY)
	if spineDir[2] <= 0 {
		return mgl64.QuatIdent()
	}
	angle := math.Asin(clamp(spineDir[2], -1, 1))
	correction := (angle / 2) * -(math.Cos(angle) / 2)
	return mgl64.QuatRotate(correction, unitX)
}

// DefaultSampleMeshBinding builds the binding for the sample avatar mesh that
// ships with the project: 20 bones, root at index 0. The corrective rotations
// and axis maps below are calibration data for that mesh's bind pose; any
// other mesh needs its own calibration pass.
func DefaultSampleMeshBinding() (*MeshBinding, error) {
	spineHead := AxisMap{Order: [3]int{0, 2, 1}, Sign: [3]float64{1, -1, 1}}
	leftArm := AxisMap{Order: [3]int{2, 1, 0}, Sign: [3]float64{-1, 1, 1}}
	leftHand := AxisMap{Order: [3]int{2, 0, 1}, Sign: [3]float64{-1, -1, 1}}
	rightArm := AxisMap{Order: [3]int{2, 1, 0}, Sign: [3]float64{1, 1, -1}}
	rightHand := AxisMap{Order: [3]int{2, 0, 1}, Sign: [3]float64{1, -1, -1}}
	legs := AxisMap{Order: [3]int{0, 2, 1}, Sign: [3]float64{1, 1, -1}}
	feet := AxisMap{Order: [3]int{0, 1, 2}, Sign: [3]float64{1, -1, -1}}

	ident := mgl64.QuatIdent()
	mappings := []BoneMapping{
		{Joint: JointHipCenter, TargetBone: 0, Adjustment: ident, Axes: IdentityAxisMap()},
		{Joint: JointSpine, TargetBone: 1, Adjustment: ident, Axes: spineHead},
		{Joint: JointShoulderCenter, TargetBone: 2, Adjustment: ident, Axes: spineHead},
		{Joint: JointHead, TargetBone: 3,
			Adjustment: mgl64.QuatRotate(mgl64.DegToRad(-30), unitX), Axes: spineHead},

		{Joint: JointShoulderLeft, TargetBone: 4,
			Adjustment: mgl64.QuatRotate(mgl64.DegToRad(-15), unitZ), Axes: leftArm},
		{Joint: JointElbowLeft, TargetBone: 5, Adjustment: ident, Axes: leftArm},
		{Joint: JointWristLeft, TargetBone: 6, Adjustment: ident, Axes: leftHand},
		{Joint: JointHandLeft, TargetBone: 7, Adjustment: ident, Axes: leftHand},

		{Joint: JointShoulderRight, TargetBone: 8,
			Adjustment: mgl64.QuatRotate(mgl64.DegToRad(15), unitZ), Axes: rightArm},
		{Joint: JointElbowRight, TargetBone: 9, Adjustment: ident, Axes: rightArm},
		{Joint: JointWristRight, TargetBone: 10, Adjustment: ident, Axes: rightHand},
		{Joint: JointHandRight, TargetBone: 11, Adjustment: ident, Axes: rightHand},

		{Joint: JointKneeLeft, TargetBone: 12, Adjustment: ident, Axes: legs, CombineWithParent: true},
		{Joint: JointAnkleLeft, TargetBone: 13, Adjustment: ident, Axes: legs},
		{Joint: JointFootLeft, TargetBone: 14, Adjustment: ident, Axes: feet},

		{Joint: JointKneeRight, TargetBone: 15, Adjustment: ident, Axes: legs, CombineWithParent: true},
		{Joint: JointAnkleRight, TargetBone: 16, Adjustment: ident, Axes: legs},
		{Joint: JointFootRight, TargetBone: 17, Adjustment: ident, Axes: feet},
	}
	return NewMeshBinding(mgl64.Ident4(), 20, 0, mappings)
}
