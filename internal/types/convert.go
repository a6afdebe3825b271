package types

// Promote applies integer promotion (C11 §6.3.1.1): every type of integer
// rank less than int, and every bit-field/enum of such a type, converts to
// int if int can represent all its values, else unsigned int. Types that
// are not narrower than int, and non-integer types, pass through unchanged.
func (ar *Arena) Promote(t *Type) *Type {
	if t.Kind != Simple || !t.Simple.IsInteger() {
		return t
	}
	switch t.Simple {
	case Bool, Char, SChar, Short:
		return ar.SimpleType(Int)
	case UChar, UShort:
		// int can represent every value of unsigned char/short on this
		// LP64 target (both narrower than int), so promotion targets int.
		return ar.SimpleType(Int)
	default:
		return t
	}
}

// UsualArithmeticConversion implements C11 §6.3.1.8 precisely, per spec.md
// §4.2:
//
//	if either is long double -> long double
//	else if either is double -> double
//	else if either is float -> float
//	else (integer promotion applied to both, then:)
//	  if same type -> done
//	  if both signed or both unsigned -> higher rank wins
//	  else unsigned of higher-or-equal rank wins
//	  else if signed type can represent every value of the unsigned type -> signed wins
//	  else -> unsigned counterpart of the signed type's rank
func (ar *Arena) UsualArithmeticConversion(a, b *Type) *Type {
	if a.Kind == Simple && a.Simple == LDouble || b.Kind == Simple && b.Simple == LDouble {
		return ar.SimpleType(LDouble)
	}
	if a.Kind == Simple && a.Simple == Double || b.Kind == Simple && b.Simple == Double {
		return ar.SimpleType(Double)
	}
	if a.Kind == Simple && a.Simple == Float || b.Kind == Simple && b.Simple == Float {
		return ar.SimpleType(Float)
	}

	pa, pb := ar.Promote(a), ar.Promote(b)
	if pa.Equal(pb) {
		return pa
	}
	sa, sb := pa.Simple, pb.Simple
	uA, uB := sa.IsUnsigned(), sb.IsUnsigned()

	if uA == uB {
		if sa.Rank() >= sb.Rank() {
			return pa
		}
		return pb
	}
	// exactly one is unsigned
	unsigned, signed := pa, pb
	if uB {
		unsigned, signed = pb, pa
	}
	if unsigned.Simple.Rank() >= signed.Simple.Rank() {
		return unsigned
	}
	if signed.Size() > unsigned.Size() {
		// the signed type's range contains the unsigned type's range
		return signed
	}
	return ar.unsignedCounterpart(signed)
}

func (ar *Arena) unsignedCounterpart(t *Type) *Type {
	switch t.Simple {
	case Char, SChar:
		return ar.SimpleType(UChar)
	case Short:
		return ar.SimpleType(UShort)
	case Int:
		return ar.SimpleType(UInt)
	case Long:
		return ar.SimpleType(ULong)
	case LLong:
		return ar.SimpleType(ULLong)
	default:
		return t
	}
}
