package linker

import (
	"bytes"
	"fmt"
	"testing"
)

func padField(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func appendArHeader(buf *bytes.Buffer, name string, size int) {
	buf.Write(padField(name, 16))
	buf.Write(padField("0", 12))
	buf.Write(padField("0", 6))
	buf.Write(padField("0", 6))
	buf.Write(padField("100644", 8))
	buf.Write(padField(fmt.Sprint(size), 10))
	buf.WriteString("`\n")
}

func appendArMember(buf *bytes.Buffer, name string, content []byte) {
	appendArHeader(buf, name, len(content))
	buf.Write(content)
	if len(content)%2 == 1 {
		buf.WriteByte('\n')
	}
}

func TestReadArchiveMembersPlainNames(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(arMagic)
	appendArMember(&buf, "foo.o/", []byte("FOOFOOFOO"))
	appendArMember(&buf, "bar.o/", []byte("BARBAR"))

	archive := &File{Name: "lib.a", Contents: buf.Bytes()}
	members := ReadArchiveMembers(archive)

	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Name != "foo.o" || string(members[0].Contents) != "FOOFOOFOO" {
		t.Errorf("members[0] = %+v", members[0])
	}
	if members[1].Name != "bar.o" || string(members[1].Contents) != "BARBAR" {
		t.Errorf("members[1] = %+v", members[1])
	}
	for _, m := range members {
		if m.ArchiveName != "lib.a" {
			t.Errorf("member %s has ArchiveName %q, want lib.a", m.Name, m.ArchiveName)
		}
	}
}

func TestReadArchiveMembersSkipsSymbolTables(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(arMagic)
	appendArMember(&buf, "/", []byte("gnu symtab contents"))
	appendArMember(&buf, "__.SYMDEF", []byte("apple symtab contents"))
	appendArMember(&buf, "real.o/", []byte("OBJDATA"))

	archive := &File{Name: "lib.a", Contents: buf.Bytes()}
	members := ReadArchiveMembers(archive)

	if len(members) != 1 {
		t.Fatalf("got %d members, want 1 (symbol tables must be skipped): %+v", len(members), members)
	}
	if members[0].Name != "real.o" {
		t.Errorf("members[0].Name = %q, want real.o", members[0].Name)
	}
}

func TestReadArchiveMembersGNULongNames(t *testing.T) {
	longName := "a_name_longer_than_sixteen_characters.o"
	var nameTable bytes.Buffer
	nameTable.WriteString(longName)
	nameTable.WriteString("/\n")

	var buf bytes.Buffer
	buf.WriteString(arMagic)
	appendArMember(&buf, "//", nameTable.Bytes())
	appendArMember(&buf, "/0", []byte("LONGNAMEDATA"))

	archive := &File{Name: "lib.a", Contents: buf.Bytes()}
	members := ReadArchiveMembers(archive)

	if len(members) != 1 {
		t.Fatalf("got %d members, want 1: %+v", len(members), members)
	}
	if members[0].Name != longName {
		t.Errorf("members[0].Name = %q, want %q", members[0].Name, longName)
	}
	if string(members[0].Contents) != "LONGNAMEDATA" {
		t.Errorf("members[0].Contents = %q", members[0].Contents)
	}
}

func TestReadArchiveMembersBSDExtendedName(t *testing.T) {
	name := "embedded_name.o"
	content := append([]byte(name), []byte("PAYLOAD")...)

	var buf bytes.Buffer
	buf.WriteString(arMagic)
	appendArMember(&buf, fmt.Sprintf("#1/%d", len(name)), content)

	archive := &File{Name: "lib.a", Contents: buf.Bytes()}
	members := ReadArchiveMembers(archive)

	if len(members) != 1 {
		t.Fatalf("got %d members, want 1: %+v", len(members), members)
	}
	if members[0].Name != name {
		t.Errorf("members[0].Name = %q, want %q", members[0].Name, name)
	}
	if string(members[0].Contents) != "PAYLOAD" {
		t.Errorf("members[0].Contents = %q, want PAYLOAD", members[0].Contents)
	}
}
