// Package storage provides the sector store underneath the BeeDB index.
//
// # Index File Layout
//
// An index file is an array of fixed-size sectors. Sector 0 holds the
// IndexHeader; every other sector is either a B+Tree node or a free sector.
// Free sectors form a singly linked list whose head lives in the header:
//
//	+----------+----------+----------+----------+
//	| header   | node     | free -+  | node     |
//	+----------+----------+-------|--+----------+
//	      |                       v
//	      +-- FreeHead ------> next free ...
//
// # Geometry
//
// The sector size and key size are fixed when the file is created. A node
// holds MaxCount entries:
//
//	maxCt = (sectorSize - NodeHeaderSize) / (keySize + ChildAddrSize + RecordAddrSize)
//
// Geometries with fewer than MinNodeEntries entries per node are rejected
// with ErrSectorSize. SectorSizeFor picks the smallest standard size for a
// given key size.
//
// # Durability
//
// PageStore writes go straight to the file. Sync writes the header when it
// changed and fsyncs when anything was written since the last Sync, so a
// Sync with nothing pending performs no I/O.
//
//	ps, err := storage.CreatePageStore("data.idx", storage.Geometry{SectorSize: 512, KeySize: 26}, storage.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer ps.Close()
//
//	addr, err := ps.Allocate()
//	if err != nil {
//	    return err
//	}
//	if err := ps.Write(addr, buf); err != nil {
//	    return err
//	}
//	return ps.Sync()
package storage
