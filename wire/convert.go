package wire

import "erebus-rpc/property"

// Encode converts a property.Property plus its sender-local wire id into a
// PropertyWire frame.
func Encode(id uint32, p property.Property) PropertyWire {
	w := PropertyWire{ID: id, Kind: uint32(p.Type())}
	switch p.Type() {
	case property.Bool:
		w.VBool, _ = p.GetBool()
	case property.Int32:
		w.VInt32, _ = p.GetInt32()
	case property.UInt32:
		w.VUInt32, _ = p.GetUInt32()
	case property.Int64:
		w.VInt64, _ = p.GetInt64()
	case property.UInt64:
		w.VUInt64, _ = p.GetUInt64()
	case property.Double:
		w.VDouble, _ = p.GetDouble()
	case property.String:
		w.VString, _ = p.GetString()
	case property.Binary:
		w.VBinary, _ = p.GetBinary()
	}
	return w
}

// Decode converts a PropertyWire frame back into a property.Property using
// the already-resolved local descriptor info (the caller has already
// translated w.ID through a mapping.Mapping). Map-typed properties are not
// representable on PropertyWire (only scalar one-of fields exist) and are
// never produced by Decode.
func Decode(info *property.Info, w PropertyWire) property.Property {
	switch property.Type(w.Kind) {
	case property.Bool:
		return property.NewBool(info, w.VBool)
	case property.Int32:
		return property.NewInt32(info, w.VInt32)
	case property.UInt32:
		return property.NewUInt32(info, w.VUInt32)
	case property.Int64:
		return property.NewInt64(info, w.VInt64)
	case property.UInt64:
		return property.NewUInt64(info, w.VUInt64)
	case property.Double:
		return property.NewDouble(info, w.VDouble)
	case property.String:
		return property.NewString(info, w.VString)
	case property.Binary:
		return property.NewBinary(info, w.VBinary)
	default:
		return property.NewEmpty()
	}
}

// InfoToWire converts a registered/transient descriptor to its wire form.
func InfoToWire(info *property.Info) PropertyInfoWire {
	return PropertyInfoWire{
		ID:           info.UniqueID,
		Type:         uint32(info.Type),
		Name:         info.Name,
		ReadableName: info.ReadableName,
	}
}
