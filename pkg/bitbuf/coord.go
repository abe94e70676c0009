package bitbuf

//
// Source engine compressed coordinates and normals.
//

const (
	CoordIntegerBits         = 14
	CoordFractionalBits      = 5
	CoordDenominator         = 1 << CoordFractionalBits
	CoordResolution          = 1.0 / CoordDenominator
	CoordIntegerBitsMP       = 11
	CoordFractionalBitsLowMP = 3
	CoordDenominatorLowMP    = 1 << CoordFractionalBitsLowMP
	CoordResolutionLowMP     = 1.0 / CoordDenominatorLowMP
	NormalFractionalBits     = 11
	NormalDenominator        = (1 << NormalFractionalBits) - 1
	NormalResolution         = 1.0 / NormalDenominator
)

// CoordKind selects the precision of multiplayer and cell coordinates.
type CoordKind int

const (
	CoordFull CoordKind = iota
	CoordLowPrecision
	CoordIntegral
)

func (k CoordKind) fractionBits() int {
	if k == CoordLowPrecision {
		return CoordFractionalBitsLowMP
	}
	return CoordFractionalBits
}

func (k CoordKind) resolution() float32 {
	if k == CoordLowPrecision {
		return CoordResolutionLowMP
	}
	return CoordResolution
}

func (r *BitReader) ReadBitCoord() float32 {
	hasInt := r.ReadBool()
	hasFract := r.ReadBool()
	if !hasInt && !hasFract {
		return 0
	}
	sign := r.ReadBool()
	var intVal, fractVal uint32
	if hasInt {
		intVal = r.ReadUBits(CoordIntegerBits) + 1
	}
	if hasFract {
		fractVal = r.ReadUBits(CoordFractionalBits)
	}
	v := float32(intVal) + float32(fractVal)*CoordResolution
	if sign {
		v = -v
	}
	return v
}

func (r *BitReader) ReadBitCoordMP(kind CoordKind) float32 {
	inBounds := r.ReadBool()
	intBits := CoordIntegerBits
	if inBounds {
		intBits = CoordIntegerBitsMP
	}

	var v float32
	var sign bool
	if kind == CoordIntegral {
		if r.ReadBool() {
			sign = r.ReadBool()
			v = float32(r.ReadUBits(intBits) + 1)
		}
	} else {
		hasInt := r.ReadBool()
		sign = r.ReadBool()
		var intVal uint32
		if hasInt {
			intVal = r.ReadUBits(intBits) + 1
		}
		fractVal := r.ReadUBits(kind.fractionBits())
		v = float32(intVal) + float32(fractVal)*kind.resolution()
	}
	if sign {
		v = -v
	}
	return v
}

// ReadBitCellCoord reads an unsigned coordinate relative to a grid cell.
func (r *BitReader) ReadBitCellCoord(bits int, kind CoordKind) float32 {
	if kind == CoordIntegral {
		return float32(r.ReadUBits(bits))
	}
	intVal := r.ReadUBits(bits)
	fractVal := r.ReadUBits(kind.fractionBits())
	return float32(intVal) + float32(fractVal)*kind.resolution()
}

func (r *BitReader) ReadBitNormal() float32 {
	sign := r.ReadBool()
	v := float32(r.ReadUBits(NormalFractionalBits)) * NormalResolution
	if sign {
		v = -v
	}
	return v
}

func absInt(f float32) uint32 {
	i := int64(f)
	if i < 0 {
		i = -i
	}
	return uint32(i)
}

func (w *BitWriter) PutBitCoord(f float32) {
	sign := f <= -CoordResolution
	intVal := absInt(f)
	fractVal := absInt(f*CoordDenominator) & (CoordDenominator - 1)

	w.PutBool(intVal != 0)
	w.PutBool(fractVal != 0)
	if intVal == 0 && fractVal == 0 {
		return
	}
	w.PutBool(sign)
	if intVal != 0 {
		w.PutUBits(intVal-1, CoordIntegerBits)
	}
	if fractVal != 0 {
		w.PutUBits(fractVal, CoordFractionalBits)
	}
}

func (w *BitWriter) PutBitCoordMP(f float32, kind CoordKind) {
	sign := f <= -kind.resolution()
	intVal := absInt(f)
	denom := float32(int(1) << kind.fractionBits())
	fractVal := absInt(f*denom) & (uint32(denom) - 1)
	inBounds := intVal < 1<<CoordIntegerBitsMP
	intBits := CoordIntegerBits
	if inBounds {
		intBits = CoordIntegerBitsMP
	}

	w.PutBool(inBounds)
	if kind == CoordIntegral {
		w.PutBool(intVal != 0)
		if intVal != 0 {
			w.PutBool(sign)
			w.PutUBits(intVal-1, intBits)
		}
		return
	}
	w.PutBool(intVal != 0)
	w.PutBool(sign)
	if intVal != 0 {
		w.PutUBits(intVal-1, intBits)
	}
	w.PutUBits(fractVal, kind.fractionBits())
}

func (w *BitWriter) PutBitCellCoord(f float32, bits int, kind CoordKind) {
	intVal := absInt(f)
	if kind == CoordIntegral {
		w.PutUBits(intVal, bits)
		return
	}
	denom := float32(int(1) << kind.fractionBits())
	fractVal := absInt(f*denom) & (uint32(denom) - 1)
	w.PutUBits(intVal, bits)
	w.PutUBits(fractVal, kind.fractionBits())
}

func (w *BitWriter) PutBitNormal(f float32) {
	sign := f <= -NormalResolution
	fractVal := absInt(f * NormalDenominator)
	if fractVal > NormalDenominator {
		fractVal = NormalDenominator
	}
	w.PutBool(sign)
	w.PutUBits(fractVal, NormalFractionalBits)
}
