package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so record types live in prefixed key
// namespaces. Keys embed the owner so a scan of one owner is a prefix scan.
//
// Data Type     Prefix   Key Format                    Value Type
// ================================================================
// File Record   "f:"     f:<ownerID>:<fileID>          FileRecord (JSON)
// Folder Record "d:"     d:<ownerID>:<folderID>        FolderRecord (JSON)
//
// Owner IDs must not contain ':'; the drive rejects them before they reach
// the store.

const (
	prefixFile   = "f:"
	prefixFolder = "d:"
)

// keyFile returns the key of one file record.
func keyFile(ownerID, fileID string) []byte {
	return []byte(prefixFile + ownerID + ":" + fileID)
}

// keyFileScan returns the prefix covering an owner's files, or all files
// when ownerID is empty.
func keyFileScan(ownerID string) []byte {
	if ownerID == "" {
		return []byte(prefixFile)
	}
	return []byte(prefixFile + ownerID + ":")
}

// keyFolder returns the key of one folder record.
func keyFolder(ownerID, folderID string) []byte {
	return []byte(prefixFolder + ownerID + ":" + folderID)
}

// keyFolderScan returns the prefix covering an owner's folders, or all
// folders when ownerID is empty.
func keyFolderScan(ownerID string) []byte {
	if ownerID == "" {
		return []byte(prefixFolder)
	}
	return []byte(prefixFolder + ownerID + ":")
}
